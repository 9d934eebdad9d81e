package attachment

import (
	"encoding/json"

	"github.com/google/uuid"
)

func messageUpdatedPayload(messageID, attachmentID uuid.UUID) json.RawMessage {
	payload, _ := json.Marshal(struct {
		MessageID    uuid.UUID `json:"message_id"`
		AttachmentID uuid.UUID `json:"attachment_id"`
		Reason       string    `json:"reason"`
	}{MessageID: messageID, AttachmentID: attachmentID, Reason: "attachment_linked"})
	return payload
}
