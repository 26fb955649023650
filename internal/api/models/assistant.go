package models

// AssistantRequest is the body of POST /v1/assistant:complete.
type AssistantRequest struct {
	Content string `json:"content"`
}

// AssistantResponse carries the generated text.
type AssistantResponse struct {
	Text string `json:"text"`
}
