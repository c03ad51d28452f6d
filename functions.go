// Package functions exports Cloud Functions of document histories.
package functions

import (
	"context"
	"net/http"

	"github.com/docshistory/histories-backend/internal/functions/previewhistorydiff"
	"github.com/docshistory/histories-backend/internal/functions/trackhistory"
	"github.com/docshistory/histories-backend/pkg/firestore"
)

// TrackHistory Firestore trigger handler, records history of every written document.
func TrackHistory(ctx context.Context, e firestore.Event) error {
	return trackhistory.TrackHistory(ctx, e)
}

// PreviewHistoryDiff PreviewHistoryDiff handler.
func PreviewHistoryDiff(w http.ResponseWriter, r *http.Request) {
	previewhistorydiff.PreviewHistoryDiff(w, r)
}
