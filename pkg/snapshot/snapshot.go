// Package snapshot turns raw structured command output into the typed views
// the compliance engine evaluates.
//
// A Snapshot carries the parsed results of the routing-table, BGP-summary and
// OSPF-neighbor commands for one device. Each view is located inside its
// document with a jq query, so the same engine can audit any platform whose
// parser emits a different layout.
package snapshot

import (
	"fmt"
	"reflect"

	"github.com/itchyny/gojq"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/util"
)

// Snapshot holds the three raw parser documents for one device. A nil field
// means the command produced nothing usable.
type Snapshot struct {
	Device string `json:"device"`
	Routes any    `json:"routes"`
	BGP    any    `json:"bgp"`
	OSPF   any    `json:"ospf"`
}

// Queries locate each view inside its raw document
type Queries struct {
	Routes string `yaml:"routes" json:"routes"`
	BGP    string `yaml:"bgp" json:"bgp"`
	OSPF   string `yaml:"ospf" json:"ospf"`
}

// Extractor runs compiled view queries
type Extractor struct {
	routes *gojq.Code
	bgp    *gojq.Code
	ospf   *gojq.Code
}

// NewExtractor compiles a query set
func NewExtractor(q Queries) (*Extractor, error) {
	e := &Extractor{}
	var err error
	if e.routes, err = compile("routes", q.Routes); err != nil {
		return nil, err
	}
	if e.bgp, err = compile("bgp", q.BGP); err != nil {
		return nil, err
	}
	if e.ospf, err = compile("ospf", q.OSPF); err != nil {
		return nil, err
	}
	return e, nil
}

// ForPlatform returns an extractor for a known platform
func ForPlatform(platform string) (*Extractor, error) {
	q, err := PlatformQueries(platform)
	if err != nil {
		return nil, err
	}
	return NewExtractor(q)
}

func compile(view, src string) (*gojq.Code, error) {
	if src == "" {
		src = "."
	}
	q, err := gojq.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s query %q: %w", view, src, err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("%s query %q: %w", view, src, err)
	}
	return code, nil
}

// Extract builds the observed state for a snapshot. A document that is not
// a mapping, or whose query fails, leaves its view absent.
func (e *Extractor) Extract(s *Snapshot) *compliance.ObservedState {
	if s == nil {
		return &compliance.ObservedState{}
	}
	return compliance.DecodeObservedState(
		e.view(s.Device, "routes", e.routes, s.Routes),
		e.view(s.Device, "bgp", e.bgp, s.BGP),
		e.view(s.Device, "ospf", e.ospf, s.OSPF),
	)
}

func (e *Extractor) view(device, name string, code *gojq.Code, raw any) any {
	doc := normalize(raw)
	if _, ok := doc.(map[string]any); !ok {
		if raw != nil {
			util.WithDevice(device).Debugf("%s output is not a mapping (%T), treating as unavailable", name, raw)
		}
		return nil
	}

	iter := code.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return nil
	}
	if err, isErr := v.(error); isErr {
		util.WithDevice(device).Debugf("%s query: %v", name, err)
		return nil
	}
	return v
}

// normalize converts decoded documents into the value types gojq accepts:
// string-keyed maps, []any slices, int or float64 numbers.
func normalize(raw any) any {
	switch v := raw.(type) {
	case nil, string, bool, int, float64:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalize(val)
		}
		return out
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(raw)
}
