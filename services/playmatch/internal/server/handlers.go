package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"playmatch/pkg/domain"
	"playmatch/services/playmatch/internal/app"
)

// auth handlers
func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	redirect := strings.TrimSpace(r.URL.Query().Get("redirect_url"))
	if redirect == "" {
		writeError(w, http.StatusBadRequest, "redirect_url is required")
		return
	}
	url, err := s.app.AuthURL(redirect)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.callbackLimiter, "too many login attempts") {
		s.audit(r, "playmatch.callback", "rate_limited")
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		s.audit(r, "playmatch.callback", "fail", "reason", "missing_session_id")
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	user, sess, err := s.app.AuthCallback(r.Context(), sessionID)
	if err != nil {
		s.audit(r, "playmatch.callback", "fail", "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "playmatch.callback", "success", "user_id", user.ID)
	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionCookie(r)
	if token == "" {
		token = app.BearerToken(r.Header.Get("Authorization"))
	}
	if err := s.app.Logout(r.Context(), token); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "playmatch.logout", "success")
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// profile handlers
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req profileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	updated, err := s.app.UpdateProfile(r.Context(), user, req.GamingProfile.toDomain(), req.AvailabilitySchedule)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request, user domain.User) {
	maxBytes := s.app.MaxAvatarBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "avatar too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	updated, err := s.app.UploadAvatar(r.Context(), user, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request, _ domain.User) {
	url, err := s.app.AvatarURL(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// matchmaking handlers
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request, user domain.User) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	candidates, err := s.app.RankCandidates(r.Context(), user, limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleMatchAction(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req matchActionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	outcome, err := s.app.ActOnMatch(r.Context(), user, req.MatchID, req.Action)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request, user domain.User) {
	otherID := strings.TrimSpace(r.URL.Query().Get("other_user_id"))
	if otherID == "" {
		writeError(w, http.StatusBadRequest, "other_user_id is required")
		return
	}
	m, err := s.app.CreateMatch(r.Context(), user, otherID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createMatchResponse{
		MatchID: m.ID,
		Score:   m.Score,
		Reasons: m.Reasons,
	})
}

// chat handlers
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request, user domain.User) {
	chat, err := s.app.GetChat(r.Context(), user, mux.Vars(r)["matchID"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req messageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.app.PostMessage(r.Context(), user, mux.Vars(r)["matchID"], req.Text)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// rating handlers
func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req ratingRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	rating, err := s.app.SubmitRating(r.Context(), user, req.RatedUserID, req.Communication, req.Respect, req.Teamwork)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rating_id": rating.ID, "message": "Rating submitted"})
}

func (s *Server) handleRatingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.app.RatingSummary(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type profileRequest struct {
	GamingProfile        *gamingProfileRequest       `json:"gaming_profile" validate:"required"`
	AvailabilitySchedule domain.AvailabilitySchedule `json:"availability_schedule"`
}

// gamingProfileRequest fills fields the client leaves out with the profile
// defaults.
type gamingProfileRequest struct {
	Games         []string `json:"games" validate:"max=50,dive,required,max=100"`
	Platform      string   `json:"platform" validate:"required,max=50"`
	Style         string   `json:"style" validate:"required,max=50"`
	Communication string   `json:"communication" validate:"required,max=50"`
	Tolerance     int      `json:"tolerance" validate:"min=1,max=5"`
	Goal          string   `json:"goal" validate:"required,max=100"`
}

func (p *gamingProfileRequest) UnmarshalJSON(data []byte) error {
	type plain gamingProfileRequest
	def := domain.NewGamingProfile()
	out := plain{
		Games:         def.Games,
		Platform:      def.Platform,
		Style:         def.Style,
		Communication: def.Communication,
		Tolerance:     def.Tolerance,
		Goal:          def.Goal,
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = gamingProfileRequest(out)
	return nil
}

func (p *gamingProfileRequest) toDomain() domain.GamingProfile {
	return domain.GamingProfile{
		Games:         p.Games,
		Platform:      p.Platform,
		Style:         p.Style,
		Communication: p.Communication,
		Tolerance:     p.Tolerance,
		Goal:          p.Goal,
	}
}

type matchActionRequest struct {
	MatchID string `json:"match_id" validate:"required"`
	Action  string `json:"action"`
}

type createMatchResponse struct {
	MatchID string   `json:"match_id"`
	Score   float64  `json:"compatibility_score"`
	Reasons []string `json:"reasons"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type ratingRequest struct {
	RatedUserID   string `json:"rated_user_id" validate:"required"`
	Communication int    `json:"communication"`
	Respect       int    `json:"respect"`
	Teamwork      int    `json:"teamwork"`
}
