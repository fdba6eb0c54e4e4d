package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yamcs/yamcs-client-go/model"
)

// AdaptNameForREST turns a name into a path suffix. Fully-qualified names are
// kept as is; aliases in the format NAMESPACE/NAME get a leading slash so that
// the namespace becomes the first path segment.
func AdaptNameForREST(name string) string {
	if strings.HasPrefix(name, "/") {
		return escapePath(name)
	}
	parts := strings.SplitN(name, "/", 2)
	if len(parts) < 2 {
		return "/" + url.PathEscape(name)
	}
	return "/" + url.PathEscape(parts[0]) + "/" + url.PathEscape(parts[1])
}

func escapePath(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// BuildNamedObjectID decomposes a name into a NamedObjectID. Names starting
// with a slash are fully-qualified XTCE names; anything else must be an alias
// in the format NAMESPACE/NAME.
func BuildNamedObjectID(name string) (model.NamedObjectID, error) {
	if strings.HasPrefix(name, "/") {
		return model.NamedObjectID{Name: name}, nil
	}
	parts := strings.SplitN(name, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return model.NamedObjectID{}, fmt.Errorf("failed to process %q: use fully-qualified XTCE names or, alternatively, an alias in the format NAMESPACE/NAME: %w", name, model.ErrInvalidName)
	}
	return model.NamedObjectID{Namespace: parts[0], Name: parts[1]}, nil
}

// BuildNamedObjectIDs is the bulk variant of BuildNamedObjectID.
func BuildNamedObjectIDs(names []string) ([]model.NamedObjectID, error) {
	ids := make([]model.NamedObjectID, 0, len(names))
	for _, name := range names {
		id, err := BuildNamedObjectID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
