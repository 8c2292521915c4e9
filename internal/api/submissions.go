package api

import (
	"net/http"
	"strconv"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/notification"
	"auto-uw-agent/internal/underwriting"
)

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req underwriting.SubmitRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// handleList lists submissions. Any of q, riskBand, from or size turns the
// listing into a search.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	status := params.Get("status")

	if params.Has("q") || params.Has("riskBand") || params.Has("from") || params.Has("size") {
		q := underwriting.Query{
			Text:     params.Get("q"),
			Status:   status,
			RiskBand: params.Get("riskBand"),
		}
		var err error
		if q.From, err = intParam(params.Get("from")); err != nil {
			h.writeError(w, r, errors.NewSubmissionValidationFailedError("from: "+err.Error()))
			return
		}
		if q.Size, err = intParam(params.Get("size")); err != nil {
			h.writeError(w, r, errors.NewSubmissionValidationFailedError("size: "+err.Error()))
			return
		}
		res, err := h.svc.Search(r.Context(), q)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	subs, err := h.svc.List(r.Context(), models.SubmissionStatus(status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":       len(subs),
		"submissions": subs,
	})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	started, err := h.svc.RunPipeline(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if !started {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"submissionId": id,
		"started":      started,
	})
}

func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.PipelineState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	var d underwriting.Decision
	if err := decode(w, r, &d); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.Decide(r.Context(), r.PathValue("id"), d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleIssuePolicy(w http.ResponseWriter, r *http.Request) {
	var req underwriting.IssueRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.svc.IssuePolicy(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleSendProposal(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SendProposal(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRequestInfo(w http.ResponseWriter, r *http.Request) {
	var req notification.InfoRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.RequestInfo(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry)
}

func (h *Handler) handleAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.registry.Find(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code:    "AGENT_NOT_FOUND",
			Message: "Agent not found",
			Details: "id: " + r.PathValue("id"),
		}})
		return
	}
	writeJSON(w, http.StatusOK, a)
}
