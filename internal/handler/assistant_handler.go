package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/chat"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/response"
)

// AssistantReply is the stateless bridge call: transcript in, one reply out.
func (h *Handler) AssistantReply(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid assistant request")
		response.BadRequest(c, err.Error())
		return
	}

	reply, err := h.assistant.Reply(ctx, req.Messages)
	if err != nil {
		l.Warn().Err(err).Msg("assistant reply cancelled")
		reply = chat.ErrorMessage
	}

	response.Success(c, domain.ReplyResponse{Reply: reply})
}

// OpenChat mounts a chat screen.
func (h *Handler) OpenChat(c *gin.Context) {
	session := h.chats.Open(middleware.GetUserID(c))
	response.Created(c, chatView(session))
}

// GetChat returns the state of an open chat screen.
func (h *Handler) GetChat(c *gin.Context) {
	session, ok := h.chatSession(c)
	if !ok {
		return
	}
	response.Success(c, chatView(session))
}

// SubmitChat submits input to an open chat screen and returns the transcript
// once the reply has landed. Blank input or a pending reply is not accepted.
func (h *Handler) SubmitChat(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	session, ok := h.chatSession(c)
	if !ok {
		return
	}

	var req domain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid chat submit request")
		response.BadRequest(c, err.Error())
		return
	}

	accepted := session.Submit(ctx, req.Input)
	response.Success(c, domain.SubmitResponse{
		Accepted: accepted,
		Messages: session.Messages(),
	})
}

// CloseChat unmounts a chat screen and discards its transcript.
func (h *Handler) CloseChat(c *gin.Context) {
	if err := h.chats.Close(c.Param("id"), middleware.GetUserID(c)); err != nil {
		response.NotFound(c, sentence(err))
		return
	}
	response.Success(c, nil)
}

func (h *Handler) chatSession(c *gin.Context) (*chat.Session, bool) {
	session, err := h.chats.Get(c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			response.NotFound(c, sentence(err))
			return nil, false
		}
		response.InternalError(c, err.Error())
		return nil, false
	}
	return session, true
}

func chatView(session *chat.Session) domain.ChatView {
	return domain.ChatView{
		SessionID: session.ID,
		Messages:  session.Messages(),
		Loading:   session.Pending(),
	}
}
