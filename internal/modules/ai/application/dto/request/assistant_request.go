package request

// AskRequest POST /chat/ask
type AskRequest struct {
	Question string `json:"question"`
}

// StoreQARequest POST /qa/store
type StoreQARequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AddNoteRequest POST /notes/add
type AddNoteRequest struct {
	PointID string `json:"point_id"`
	Note    string `json:"note"`
}

// MindMapRequest POST /mindmap/render
type MindMapRequest struct {
	Description string `json:"description"`
}
