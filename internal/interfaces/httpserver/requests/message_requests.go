package requests

// SendTextRequest is the body for plain text sends.
type SendTextRequest struct {
	Contact string `json:"contact" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

// SendReplyRequest quotes a previously stored message.
type SendReplyRequest struct {
	Contact         string `json:"contact" binding:"required"`
	Text            string `json:"text" binding:"required"`
	ParentMessageID string `json:"parent_message_id" binding:"required"`
}

// SendMediaForm is the multipart form for media sends; the payload itself
// arrives as the "file" part.
type SendMediaForm struct {
	Contact string `form:"contact" binding:"required"`
	Caption string `form:"caption"`
}
