package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/rotisserie/eris"
)

// CacheKey returns the deterministic cache key for a request. Arguments are
// canonicalized through JSON encoding, which sorts map keys at every depth.
func CacheKey(req Request) (string, error) {
	args := req.Args
	if args == nil {
		args = []any{}
	}
	kwargs := req.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	canon, err := json.Marshal(struct {
		Args   []any          `json:"a"`
		Kwargs map[string]any `json:"k"`
	}{args, kwargs})
	if err != nil {
		return "", eris.Wrap(err, "gateway: canonicalize args")
	}

	h := xxhash.NewS64(0)
	h.Write(canon)
	return fmt.Sprintf("%s:%016x", req.Tool, h.Sum64()), nil
}
