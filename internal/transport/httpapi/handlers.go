package httpapi

import (
	"net/http"
	"strconv"

	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/handler/http/respond"
	"feedhub/internal/runtime"
	"feedhub/internal/usecase/entries"
	"feedhub/internal/usecase/subscribedfeeds"
)

// Server holds the usecases and Runtime the HTTP surface dispatches to.
type Server struct {
	Runtime         *runtime.Runtime
	SubscribedFeeds *subscribedfeeds.Usecase
	Entries         *entries.Usecase
}

// Routes registers the two read-side endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /subscribed-feeds", s.handleSubscribedFeeds)
	mux.HandleFunc("GET /entries", s.handleEntries)
}

type feedSlotDTO struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	Requirement  string `json:"requirement,omitempty"`
	Category     string `json:"category,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type subscribedFeedsResponseDTO struct {
	Feeds   []feedSlotDTO `json:"feeds"`
	HasPrev bool          `json:"has_prev"`
	HasNext bool          `json:"has_next"`
}

func (s *Server) handleSubscribedFeeds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := subscribedfeeds.Input{First: parseFirst(q.Get("first"))}
	if after := q.Get("after"); after != "" {
		input.After = &after
	}

	out, err := runtime.Run[subscribedfeeds.Input, subscribedfeeds.Output](r.Context(), s.Runtime, s.SubscribedFeeds, input)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}

	resp := subscribedFeedsResponseDTO{HasPrev: out.HasPrev, HasNext: out.HasNext}
	for _, slot := range out.Feeds {
		switch {
		case slot.Feed != nil:
			resp.Feeds = append(resp.Feeds, feedSlotDTO{
				URL:         slot.Feed.URL.String(),
				Title:       slot.Feed.Feed.Meta.Title,
				Requirement: slot.Feed.Requirement.String(),
				Category:    slot.Feed.Category.String(),
			})
		case slot.Fail != nil:
			resp.Feeds = append(resp.Feeds, feedSlotDTO{
				URL:          slot.Fail.URL.String(),
				ErrorMessage: fetchErrorMessage(slot.Fail.Err),
			})
		}
	}
	respond.JSON(w, http.StatusOK, resp)
}

type entryDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"feed_url"`
	Published string `json:"published,omitempty"`
}

type entriesResponseDTO struct {
	Entries []entryDTO `json:"entries"`
	HasPrev bool       `json:"has_prev"`
	HasNext bool       `json:"has_next"`
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := entries.Input{First: parseFirst(q.Get("first"))}
	if after := q.Get("after"); after != "" {
		input.After = &after
	}

	out, err := runtime.Run[entries.Input, entries.Output](r.Context(), s.Runtime, s.Entries, input)
	if err != nil {
		writeUsecaseError(w, err)
		return
	}

	resp := entriesResponseDTO{HasPrev: out.HasPrev, HasNext: out.HasNext}
	for _, d := range out.Entries {
		dto := entryDTO{ID: d.Entry.ID, Title: d.Entry.Title, URL: d.URL.String()}
		if d.Entry.Published != nil {
			dto.Published = d.Entry.Published.Format("2006-01-02T15:04:05Z07:00")
		}
		resp.Entries = append(resp.Entries, dto)
	}
	respond.JSON(w, http.StatusOK, resp)
}

func parseFirst(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// writeUsecaseError maps a Runtime error to the closed response codes of
// spec §6: UNAUTHORIZED for authorization failures, INTERNAL_ERROR for
// everything else (the read paths never surface per-feed errors as the
// top-level error — those are values inside the response body).
func writeUsecaseError(w http.ResponseWriter, err error) {
	if err == runtime.ErrUnauthorized {
		respond.Error(w, http.StatusUnauthorized, err)
		return
	}
	respond.Error(w, http.StatusInternalServerError, err)
}

func fetchErrorMessage(err *fetcherr.Error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
