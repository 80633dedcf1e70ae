package response

import (
	"encoding/json"
	"net/http"

	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

type problemRender struct {
	problem appErrors.Problem
}

func (r problemRender) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	payload, err := json.Marshal(r.problem)
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func (r problemRender) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", appErrors.ProblemContentType)
}
