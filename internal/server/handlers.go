package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"persona/internal/agent"
	"persona/internal/capability"
	"persona/internal/logging"
	"persona/internal/store"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.ServerWarn("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Character      string `json:"character,omitempty"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID string           `json:"conversation_id"`
	Reply          string           `json:"reply"`
	Turn           agent.TurnResult `json:"turn"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	conv, err := s.conversationFor(&req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	var character *store.Character
	if conv.Character != "" {
		character = s.characters[strings.ToLower(conv.Character)]
	}

	history := conv.Messages
	turn, reply := s.newAgent(character).Respond(r.Context(), req.Message, history)

	if _, err := s.conversations.AppendMessage(conv.ID, "user", req.Message); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := s.conversations.AppendMessage(conv.ID, "assistant", reply); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: conv.ID,
		Reply:          reply,
		Turn:           turn,
	})
}

func (s *Server) conversationFor(req *chatRequest) (*store.Conversation, error) {
	if req.ConversationID != "" {
		return s.conversations.Get(req.ConversationID)
	}
	return s.conversations.Create(req.Character)
}

func (s *Server) handleListCapabilities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleDeleteCapability(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	origin, ok := s.registry.Origin(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "capability not found")
		return
	}
	if origin == capability.OriginBuiltin {
		s.writeError(w, http.StatusForbidden, "built-in capabilities cannot be deleted")
		return
	}

	if err := s.pipeline.Delete(name); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logging.Server("capability '%s' deleted via API", name)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "name": name})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	all, err := s.conversations.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if all == nil {
		all = []*store.Conversation{}
	}
	s.writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversations.Get(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.conversations.Delete(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	out := make([]*store.Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	s.writeJSON(w, http.StatusOK, out)
}
