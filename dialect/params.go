package dialect

import (
	"strconv"
	"strings"
)

// Param is a single property parameter. Keys keep the spelling they had
// on the wire; lookups are case-insensitive.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered property parameter list. Order is encounter order,
// which is preserved all the way into the parameter string of catch-all
// properties.
type Params []Param

// Get returns the value of the first parameter with the given key.
func (p Params) Get(key string) (string, bool) {
	for i := range p {
		if strings.EqualFold(p[i].Key, key) {
			return p[i].Value, true
		}
	}
	return "", false
}

// Has reports whether a parameter with the given key exists.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set replaces the value of the first parameter with the given key, or
// appends a new parameter.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if strings.EqualFold((*p)[i].Key, key) {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Del removes every parameter with the given key.
func (p *Params) Del(key string) {
	kept := (*p)[:0]
	for _, param := range *p {
		if !strings.EqualFold(param.Key, key) {
			kept = append(kept, param)
		}
	}
	*p = kept
}

// AddType appends a value to the comma-joined TYPE parameter, creating it
// when missing.
func (p *Params) AddType(value string) {
	for i := range *p {
		if strings.EqualFold((*p)[i].Key, "TYPE") {
			if (*p)[i].Value == "" {
				(*p)[i].Value = value
			} else {
				(*p)[i].Value += "," + value
			}
			return
		}
	}
	*p = append(*p, Param{Key: "TYPE", Value: value})
}

// String renders the parameters as KEY=VALUE pairs joined with ';' in
// encounter order. Bare parameters render as their key alone.
func (p Params) String() string {
	if len(p) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, param := range p {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(param.Key)
		if param.Value != "" {
			sb.WriteByte('=')
			sb.WriteString(param.Value)
		}
	}
	return sb.String()
}

// typeAndPref implements the shared label/preference extraction: TYPE
// values containing the literal token "pref" force preference 1, the
// explicit PREF parameter is consulted otherwise, and the label is the
// first surviving TYPE value lower-cased.
func typeAndPref(params Params) (string, int) {
	label := ""
	pref := 0

	if t, ok := params.Get("TYPE"); ok {
		for _, v := range strings.Split(t, ",") {
			v = strings.ToLower(v)
			if v == "pref" {
				pref = 1
				continue
			}
			if label == "" && v != "" {
				label = v
			}
		}
	}

	if pref == 0 {
		if v, ok := params.Get("PREF"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				pref = n
			}
		}
	}

	return label, pref
}
