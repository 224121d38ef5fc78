package userstack

import (
	"net/url"
	"sort"
	"strings"
)

// PageView is the payload of an automatic pageview event.
type PageView struct {
	// Path is the raw location path, e.g. "/users/42".
	Path string `json:"path"`
	// Route is the path with dynamic segments put back in placeholder form,
	// e.g. "/users/[userId]".
	Route string `json:"route"`
	// Query maps each key to a string, or to a []string when the key repeats.
	Query map[string]any `json:"query"`
}

// NewPageView composes the pageview payload for a location.
func NewPageView(loc Location) PageView {
	return PageView{
		Path:  loc.Path,
		Route: RouteTemplate(loc.Path, loc.Params),
		Query: ParseQuery(loc.RawQuery),
	}
}

// RouteTemplate rebuilds a route template from a concrete path by replacing
// every occurrence of each resolved parameter value with "[name]".
//
// This is a textual substitution, not a structural match: a value that also
// appears elsewhere in the path is replaced there too. Empty values are
// ignored. Substitution is a single pass over path: at each position the
// longest matching value wins, ties broken by name, so the output does not
// depend on map iteration order.
//
//	RouteTemplate("/users/42/posts/7", map[string]string{"userId": "42", "postId": "7"})
//	// "/users/[userId]/posts/[postId]"
func RouteTemplate(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	names := make([]string, 0, len(params))
	for name, value := range params {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		vi, vj := params[names[i]], params[names[j]]
		if len(vi) != len(vj) {
			return len(vi) > len(vj)
		}
		return names[i] < names[j]
	})

	// One pass over the original path; a placeholder written for one value is
	// never rescanned for another.
	oldnew := make([]string, 0, 2*len(names))
	for _, name := range names {
		oldnew = append(oldnew, params[name], "["+name+"]")
	}
	return strings.NewReplacer(oldnew...).Replace(path)
}

// ParseQuery parses a raw query string into key/value pairs. A key that
// appears once maps to its string value; a repeated key maps to a []string
// holding every value in order of appearance. A leading "?" is ignored and
// pairs that cannot be unescaped are skipped.
//
//	ParseQuery("a=1&a=2&b=3") // map[a:[1 2] b:3]
func ParseQuery(raw string) map[string]any {
	raw = strings.TrimPrefix(raw, "?")
	result := make(map[string]any)

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil || key == "" {
			continue
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			continue
		}

		switch existing := result[key].(type) {
		case nil:
			result[key] = value
		case string:
			result[key] = []string{existing, value}
		case []string:
			result[key] = append(existing, value)
		}
	}
	return result
}

// QueryValues converts url.Values into the ParseQuery shape.
func QueryValues(values url.Values) map[string]any {
	result := make(map[string]any, len(values))
	for key, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			result[key] = vs[0]
		default:
			result[key] = append([]string(nil), vs...)
		}
	}
	return result
}
