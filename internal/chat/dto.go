package chat

import "time"

// SendRequest is the body for posting a chat message.
type SendRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// MessageResponse is the public shape of a chat message.
type MessageResponse struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Role       string    `json:"role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toMessageResponse(msg Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		DocumentID: msg.DocumentID,
		Role:       msg.Role,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
}
