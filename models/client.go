package models

// WindowClient is an open portal tab connected to the worker.
type WindowClient struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	URL     string `json:"url"`
	Focused bool   `json:"focused"`
}
