package rest

import (
	"encoding/json"
	"net/http"

	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"go.uber.org/zap"
)

func (s *Server) HandleProcessAction(w http.ResponseWriter, r *http.Request) {
	var req model.PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	defer r.Body.Close()
	report, err := s.pipelineService.ProcessAction(r.Context(), &req)
	if err != nil {
		logger.Error("error processing action", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (s *Server) HandleEnqueueAction(w http.ResponseWriter, r *http.Request) {
	var req model.PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	defer r.Body.Close()
	if err := s.pipelineService.EnqueueAction(&req); err != nil {
		logger.Error("error enqueuing action", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"actionId": req.Action.Id})
}

func (s *Server) HandleListTypes(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"types": s.pipelineService.Types()})
}

func (s *Server) HandleListOfferableTypes(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"types": s.pipelineService.OfferableTypes()})
}
