// ABOUTME: Maps the typed domain errors onto huma's error model.
// ABOUTME: NotFound→404, Forbidden→403, Validation→422; anything else bubbles up as 500.
package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/collab"
)

// mapDomainError converts a grant-layer error into the matching huma status
// error. Unknown errors pass through and surface as 500s.
func mapDomainError(err error) error {
	var nf *collab.NotFoundError
	if errors.As(err, &nf) {
		return huma.Error404NotFound(nf.Msg)
	}
	var fb *collab.ForbiddenError
	if errors.As(err, &fb) {
		return huma.Error403Forbidden(fb.Msg)
	}
	var ve *collab.ValidationError
	if errors.As(err, &ve) {
		return huma.Error422UnprocessableEntity(ve.Msg)
	}
	return err
}
