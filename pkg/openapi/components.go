package openapi

import "maps"

// NewComponents creates Components with the shared envelope, paging, and error shapes.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Envelope": {
				Type:        "object",
				Description: "Operation envelope. data is present when success is true, error otherwise.",
				Properties: map[string]*Schema{
					"success": {Type: "boolean"},
					"data":    {Description: "Channel result"},
					"error":   {Type: "string"},
				},
				Required: []string{"success"},
			},
			"ByteSequence": {
				Type:        "array",
				Description: "Binary payload as byte values",
				Items:       &Schema{Type: "integer", Minimum: ptr(0.0), Maximum: ptr(255.0)},
			},
			"InvokeArgs": {
				Type:        "array",
				Description: "Positional channel arguments",
				Items:       &Schema{},
			},
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":     {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
					"pageSize": {Type: "integer", Description: "Results per page", Example: 25},
					"search":   {Type: "string", Description: "Case-insensitive id filter"},
					"sort":     {Type: "string", Description: "Comma-separated sort fields, - for descending. Example: -modifiedAt,id"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":      errorResponse("Invalid request"),
			"Forbidden":       errorResponse("Channel not registered or token rejected"),
			"NotFound":        errorResponse("Report not found"),
			"PayloadTooLarge": errorResponse("Request body exceeds the configured payload limit"),
		},
	}
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{
			"application/json": {
				Schema: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"error": {Type: "string", Description: "Error message"},
					},
				},
			},
		},
	}
}

func ptr[T any](v T) *T { return &v }
