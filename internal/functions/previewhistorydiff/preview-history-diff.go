package previewhistorydiff

import (
	"net/http"

	"github.com/docshistory/histories-backend/internal/change"
	"github.com/docshistory/histories-backend/internal/changetracker"
	"github.com/docshistory/histories-backend/internal/document"
	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/docshistory/histories-backend/internal/utils"
	httputils "github.com/docshistory/histories-backend/internal/utils/http"
	v1 "github.com/docshistory/histories-backend/pkg/api/v1"
)

//PreviewHistoryDiff Handler. Computes the history record of a change without saving it.
func PreviewHistoryDiff(w http.ResponseWriter, r *http.Request) {
	var ctx = r.Context()
	logger := logging.FromContext(ctx)

	config, err := utils.LoadHistoryConfig(ctx)
	if err != nil {
		logger.Errorf("Could not load config: %v", err)
		httputils.SendErrorResponse(w, r, err)
		return
	}

	handler(changetracker.New(config))(w, r)
}

func handler(tracker *changetracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		logger := logging.FromContext(ctx)

		var request v1.PreviewHistoryDiffRequest

		if !httputils.DecodeJSONOrReportError(w, r, &request) {
			return
		}

		logger.Debugf("Handling PreviewHistoryDiff request for %v", request.Path)

		c, err := change.New(snapshot(request.Path, request.Before), snapshot(request.Path, request.After))
		if err != nil {
			httputils.SendErrorResponse(w, r, err)
			return
		}

		record, err := tracker.Assemble(ctx, c)
		if err != nil {
			logger.Debugf("Cannot assemble history record: %v", err)
			httputils.SendErrorResponse(w, r, err)
			return
		}

		httputils.SendResponse(w, r, record)
	}
}

// Handler returns handler of PreviewHistoryDiff using given tracker.
func Handler(tracker *changetracker.Tracker) http.Handler {
	return handler(tracker)
}

func snapshot(path string, state v1.SnapshotState) document.Snapshot {
	if !state.Exists {
		return document.Snapshot{}
	}
	return document.Snapshot{
		Name:       path,
		Exists:     true,
		Data:       state.Data,
		UpdateTime: state.UpdateTime.UTC(),
	}
}
