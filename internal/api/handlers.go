package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"Kluivert-Agent/internal/driver"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/session"
	"Kluivert-Agent/pkg/logger"
)

type chatRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	Response string `json:"response"`
}

type initResponse struct {
	Agent  session.Metadata `json:"agent"`
	Config configResponse   `json:"config"`
}

type configResponse struct {
	ThreadID string `json:"thread_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleChat 初始化会话并执行一轮对话。
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "agent-chat", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, "agent-chat", xerrors.New(xerrors.CodeInvalidArgument, "message 不能为空"))
		return
	}

	reply, err := driver.NewChat(s.init, driver.WithTurnLock(s.turns)).Send(r.Context(), req.Message)
	if err != nil {
		writeError(w, "agent-chat", err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Response: reply})
}

// handleAuto 执行一轮自主交互。
func (s *Server) handleAuto(w http.ResponseWriter, r *http.Request) {
	auto := driver.NewAutonomous(s.init,
		driver.WithPrompt(s.autoPrompt),
		driver.WithPublisher(s.publisher),
		driver.WithAutonomousTurnLock(s.turns),
	)
	reply, err := auto.RunOnce(r.Context())
	if err != nil {
		writeError(w, "agent-auto", err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Response: reply})
}

// handleInit 初始化会话并返回其描述。
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.init.Initialize(r.Context())
	if err != nil {
		writeError(w, "init-agent", err)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{
		Agent:  sess.Metadata,
		Config: configResponse{ThreadID: sess.Config.ThreadID},
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errors.New("请求体为空")
	}
	return json.Unmarshal(body, out)
}

func writeError(w http.ResponseWriter, handler string, err error) {
	status := http.StatusInternalServerError
	if xerrors.CodeOf(err) == xerrors.CodeInvalidArgument {
		status = http.StatusBadRequest
	}
	logger.Named("api").Error("request failed",
		"handler", handler,
		"code", xerrors.CodeOf(err),
		"severity", xerrors.SeverityOf(err),
		"retryable", xerrors.RetryableError(err),
		"error", err,
	)
	writeJSON(w, status, errorResponse{Error: xerrors.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
