package filehost

import (
	"context"
	"sort"
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bzfile/errors"
)

// Capability names of the file resource.
const (
	CapWrite     = "write"
	CapWriteLine = "write-line"
	CapRead      = "read"
	CapReadLine  = "read-line"
	CapDump      = "dump"
	CapFlush     = "flush"
	CapClose     = "close"
	CapDrop      = "drop"
)

// Param describes one argument of a capability or namespace function.
type Param struct {
	Type wit.Type
	Name string
}

// Signature is the WIT-level shape of a function visible to guests.
// Result is nil for functions without a result.
type Signature struct {
	Result wit.Type
	Name   string
	Params []Param
}

// Capability is one operation attached to every file handle.
// Call receives the arguments after self.
type Capability struct {
	Call func(ctx context.Context, f *File, args []any) (any, error)
	Signature
	// Finalizer marks the capability run when the handle slot is freed.
	Finalizer bool
}

// CapabilitySet is the immutable operation table shared by all files.
type CapabilitySet struct {
	byName    map[string]*Capability
	finalizer *Capability
	names     []string
}

var (
	capsOnce sync.Once
	caps     *CapabilitySet
)

// Capabilities returns the process-wide capability set. It is built on
// first use and never modified afterwards.
func Capabilities() *CapabilitySet {
	capsOnce.Do(func() {
		caps = buildCapabilities()
	})
	return caps
}

// Lookup returns the capability registered under name.
func (s *CapabilitySet) Lookup(name string) (*Capability, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Names returns the capability names in sorted order.
func (s *CapabilitySet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Finalizer returns the capability run on slot release.
func (s *CapabilitySet) Finalizer() *Capability {
	return s.finalizer
}

var (
	fileType     wit.Type = wit.U32{}
	optionString wit.Type = &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}
)

func buildCapabilities() *CapabilitySet {
	list := []*Capability{
		{
			Signature: Signature{Name: CapWrite, Params: []Param{{Name: "text", Type: wit.String{}}}, Result: fileType},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				return f, f.stream.Write(args[0].(string))
			},
		},
		{
			Signature: Signature{Name: CapWriteLine, Params: []Param{{Name: "text", Type: wit.String{}}}, Result: fileType},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				return f, f.stream.WriteLine(args[0].(string))
			},
		},
		{
			Signature: Signature{Name: CapRead, Params: []Param{{Name: "count", Type: wit.S32{}}}, Result: optionString},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				data, ok, err := f.stream.Read(int(args[0].(int32)))
				if err != nil || !ok {
					return (*string)(nil), err
				}
				s := string(data)
				return &s, nil
			},
		},
		{
			Signature: Signature{Name: CapReadLine, Result: optionString},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				line, ok, err := f.stream.ReadLine()
				if err != nil || !ok {
					return (*string)(nil), err
				}
				return &line, nil
			},
		},
		{
			Signature: Signature{Name: CapDump, Result: wit.String{}},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				return f.stream.Dump(f.rawDump)
			},
		},
		{
			Signature: Signature{Name: CapFlush, Result: fileType},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				return f, f.stream.Flush()
			},
		},
		{
			Signature: Signature{Name: CapClose},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				return nil, f.close()
			},
		},
		{
			Signature: Signature{Name: CapDrop},
			Call: func(ctx context.Context, f *File, args []any) (any, error) {
				return nil, f.stream.Close()
			},
			Finalizer: true,
		},
	}

	s := &CapabilitySet{byName: make(map[string]*Capability, len(list))}
	for _, c := range list {
		s.byName[c.Name] = c
		s.names = append(s.names, c.Name)
		if c.Finalizer {
			s.finalizer = c
		}
	}
	sort.Strings(s.names)
	return s
}

// checkArgs validates argument count and Go types against the signature.
func (c *Capability) checkArgs(args []any) error {
	if len(args) != len(c.Params) {
		return errors.InvalidArgument(errors.PhaseDispatch, "%s expects %d argument(s), got %d", c.Name, len(c.Params), len(args))
	}
	for i, p := range c.Params {
		var ok bool
		switch p.Type.(type) {
		case wit.String:
			_, ok = args[i].(string)
		case wit.S32:
			_, ok = args[i].(int32)
		default:
			ok = true
		}
		if !ok {
			return errors.InvalidArgument(errors.PhaseDispatch, "%s: argument %q has type %T", c.Name, p.Name, args[i])
		}
	}
	return nil
}
