package replay_test

import (
	"net/http"

	"github.com/okian/repcoach/internal/adapters/http/api"
)

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(mux)
	return mux
}
