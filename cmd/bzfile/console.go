package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bzfile/filehost"
	"github.com/wippyai/bzfile/resource"
)

// console calls host functions by WIT name with textual arguments.
type console struct {
	host *filehost.Host
	fns  map[string]any
	sigs []filehost.Signature
}

func newConsole(h *filehost.Host) *console {
	sigs := h.Signatures()
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].Name < sigs[j].Name })
	return &console{host: h, fns: h.Register(), sigs: sigs}
}

func (c *console) signature(name string) (filehost.Signature, bool) {
	for _, s := range c.sigs {
		if s.Name == name {
			return s, true
		}
	}
	return filehost.Signature{}, false
}

// call converts args to the parameter types of name and invokes it.
func (c *console) call(ctx context.Context, name string, args []string) (string, error) {
	sig, ok := c.signature(name)
	if !ok {
		return "", fmt.Errorf("unknown function %q", name)
	}
	if len(args) != len(sig.Params) {
		return "", fmt.Errorf("%s expects %d argument(s), got %d", name, len(sig.Params), len(args))
	}

	fn := reflect.ValueOf(c.fns[name])
	ft := fn.Type()
	in := []reflect.Value{reflect.ValueOf(ctx)}
	for i, p := range sig.Params {
		v, err := convertArg(args[i], p.Type)
		if err != nil {
			return "", fmt.Errorf("argument %s: %w", p.Name, err)
		}
		in = append(in, reflect.ValueOf(v).Convert(ft.In(i+1)))
	}

	return formatResults(fn.Call(in))
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func formatResults(out []reflect.Value) (string, error) {
	var parts []string
	for _, v := range out {
		if v.Type().Implements(errorType) {
			if !v.IsNil() {
				return "", v.Interface().(error)
			}
			continue
		}
		parts = append(parts, formatValue(v.Interface()))
	}
	if len(parts) == 0 {
		return "ok", nil
	}
	return strings.Join(parts, ", "), nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case resource.Handle:
		return fmt.Sprintf("file#%d", x)
	case *string:
		if x == nil {
			return "none"
		}
		return "some(" + strconv.Quote(*x) + ")"
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// handles describes every live file handle.
func (c *console) handles() []string {
	var out []string
	c.host.Table().Each(func(h resource.Handle, _ uint32, v any) bool {
		if f, ok := v.(*filehost.File); ok {
			s := f.Stream()
			out = append(out, fmt.Sprintf("file#%d %s (%s, %s)", h, s.Path(), s.Options(), s.State()))
		}
		return true
	})
	return out
}

func (c *console) formatSignature(s filehost.Signature) string {
	params := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		params = append(params, p.Name+": "+witTypeStr(p.Type))
	}
	result := ""
	if s.Result != nil {
		result = " -> " + witTypeStr(s.Result)
	}
	return s.Name + "(" + strings.Join(params, ", ") + ")" + result
}

// runLines reads one call per line until EOF or "quit".
// Arguments are separated by spaces; double-quoted arguments may contain
// spaces and escapes.
func runLines(ctx context.Context, c *console, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "bzfile console; type help for the function list")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			for _, s := range c.sigs {
				fmt.Fprintln(out, c.formatSignature(s))
			}
		case "handles":
			for _, h := range c.handles() {
				fmt.Fprintln(out, h)
			}
		default:
			res, err := c.call(ctx, fields[0], fields[1:])
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, res)
		}
	}
	return scanner.Err()
}

func splitArgs(line string) ([]string, error) {
	var out []string
	for {
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			return out, nil
		}
		if line[0] == '"' {
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("unterminated string")
			}
			s, _ := strconv.Unquote(q)
			out = append(out, s)
			line = line[len(q):]
			continue
		}
		end := strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
		out = append(out, line[:end])
		line = line[end:]
	}
}

func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.String:
		return value, nil
	case wit.U8, wit.U16, wit.U32:
		v, err := strconv.ParseUint(strings.TrimPrefix(value, "file#"), 10, 32)
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case wit.S8, wit.S16, wit.S32:
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case wit.Bool:
		return value == "true" || value == "1", nil
	default:
		return value, nil
	}
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		if o, ok := v.Kind.(*wit.Option); ok {
			return "option<" + witTypeStr(o.Type) + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
