package rest

import (
	"net/http"

	"p2plend/core"
	"p2plend/handler/param"
	"p2plend/handler/render"
	"p2plend/service/notifier"
)

func eventsHandler(recorder *notifier.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Kind  string `json:"kind"`
			Limit int    `json:"limit"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		events := make([]*core.Event, 0)
		for _, e := range recorder.Events() {
			if params.Kind == "" || string(e.Kind) == params.Kind {
				events = append(events, e)
			}
		}

		// latest events
		if params.Limit > 0 && len(events) > params.Limit {
			events = events[len(events)-params.Limit:]
		}

		render.JSON(w, events)
	}
}
