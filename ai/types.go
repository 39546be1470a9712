package ai

// QA is one knowledge-base entry handed to the responder as context.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ResponderRequest is the input to one automated-reply evaluation.
type ResponderRequest struct {
	MessageText        string `json:"message_text"`
	KnowledgeContext   []QA   `json:"knowledge_context"`
	ToneDescriptor     string `json:"tone_descriptor"`
	IsFirstInteraction bool   `json:"is_first_interaction"`
}

// ResponderReply is the all-or-nothing result of an evaluation. When
// RequiresHandoff is set the conversation must be escalated to a human
// after the reply is delivered.
type ResponderReply struct {
	ReplyText       string `json:"reply_text"`
	RequiresHandoff bool   `json:"requires_handoff"`
}
