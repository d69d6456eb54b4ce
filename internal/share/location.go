package share

import (
	"net/url"
	"strings"
)

// Location is the part of a shared URL the resolver looks at.
type Location struct {
	Path     string
	Fragment string
	Query    url.Values
}

// ParseLocation splits a URL (absolute, or just a path with query and
// fragment) into a Location. The fragment is kept raw: lz-string's URI
// alphabet contains '+' and '$', which must not be rewritten.
func ParseLocation(raw string) Location {
	raw = strings.TrimSpace(raw)
	var loc Location
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		loc.Fragment = raw[i+1:]
		raw = raw[:i]
		if strings.Contains(loc.Fragment, "%") {
			if unescaped, err := url.PathUnescape(loc.Fragment); err == nil {
				loc.Fragment = unescaped
			}
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		path, query, _ := strings.Cut(raw, "?")
		loc.Path = path
		loc.Query, _ = url.ParseQuery(query)
		if loc.Query == nil {
			loc.Query = url.Values{}
		}
		return loc
	}
	loc.Path = u.Path
	loc.Query = u.Query()
	return loc
}

// ShortID returns the id of a "/n/<id>" path segment pair.
func (l Location) ShortID() (string, bool) {
	segs := strings.Split(l.Path, "/")
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] == "n" && segs[i+1] != "" {
			return segs[i+1], true
		}
	}
	return "", false
}
