package util

import (
	"net/url"
	"sort"
	"strings"

	"joblawn-engine/internal/domain"
)

// FacetParams projects the selected facets onto upstream parameter names. Parameters ending
// in "[]" receive every selected value; all others receive the first one.
func FacetParams(q domain.Query, mapping map[string]string) url.Values {
	out := url.Values{}
	for _, facet := range sortedKeys(mapping) {
		param := mapping[facet]
		vals := q.Values(facet)
		if param == "" || len(vals) == 0 {
			continue
		}
		if strings.HasSuffix(param, "[]") {
			for _, v := range vals {
				out.Add(param, v)
			}
			continue
		}
		out.Set(param, vals[0])
	}
	return out
}

// FacetNames returns the query facet names of a mapping in stable order.
func FacetNames(mapping map[string]string) []string {
	return sortedKeys(mapping)
}

// AddStatic copies static parameters into v without overriding selected facets.
func AddStatic(v url.Values, static map[string]string) {
	for _, k := range sortedKeys(static) {
		if _, ok := v[k]; !ok {
			v.Set(k, static[k])
		}
	}
}

// EncodeQuery is url.Values.Encode with %20 for spaces, which some career sites require.
func EncodeQuery(v url.Values) string {
	return strings.ReplaceAll(v.Encode(), "+", "%20")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
