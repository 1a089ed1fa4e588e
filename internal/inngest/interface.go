package inngest

import "net/http"

type InngestClient interface {
	Serve() http.Handler
}
