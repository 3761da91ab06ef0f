package models

// DefaultModel is used when a chat request does not name a model.
const DefaultModel = "meta/llama-3.1-405b-instruct"

// catalogCreated is the fixed creation timestamp reported for every model.
const catalogCreated = 1686935002

// OutboundPayload is a chat completion request ready to be sent upstream.
type OutboundPayload struct {
	// Body is the JSON document sent upstream. It carries exactly the
	// model, messages, temperature, max_tokens, top_p and stream fields.
	Body []byte
	// Model is the resolved model id, kept for logging and metrics.
	Model string
	// Stream selects the streaming relay.
	Stream bool
}

// UpstreamResponse is a fully buffered upstream reply.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// ModelCatalogEntry describes one model exposed on /v1/models.
type ModelCatalogEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the /v1/models response document.
type ModelList struct {
	Object string              `json:"object"`
	Data   []ModelCatalogEntry `json:"data"`
}

var catalogIDs = [...]string{
	"meta/llama-3.1-405b-instruct",
	"meta/llama-3.1-70b-instruct",
	"mistralai/mixtral-8x7b-instruct-v0.1",
}

// Catalog returns the static model listing. Each call returns a fresh copy.
func Catalog() ModelList {
	data := make([]ModelCatalogEntry, 0, len(catalogIDs))
	for _, id := range catalogIDs {
		data = append(data, ModelCatalogEntry{
			ID:      id,
			Object:  "model",
			Created: catalogCreated,
			OwnedBy: "nvidia",
		})
	}
	return ModelList{Object: "list", Data: data}
}
