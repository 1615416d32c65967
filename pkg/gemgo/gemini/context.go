package gemini

// Context is the conversation history: an append-only list of turns that is
// serialized into the `contents` array of every request.
//
// Context is not safe for concurrent use; a Session owns exactly one.
type Context struct {
	contents []Content
}

// NewContext returns an empty conversation.
func NewContext() *Context {
	return &Context{}
}

// PushMessage appends a text-only turn.
func (c *Context) PushMessage(role Role, text string) {
	c.contents = append(c.contents, Content{
		Role:  role,
		Parts: []Part{TextPart(text)},
	})
}

// PushFile appends a turn referencing an uploaded file.
func (c *Context) PushFile(role Role, data FileData) {
	c.contents = append(c.contents, Content{
		Role:  role,
		Parts: []Part{FilePart(data)},
	})
}

// PushBlob appends a turn carrying inline binary data.
func (c *Context) PushBlob(role Role, blob Blob) {
	c.contents = append(c.contents, Content{
		Role:  role,
		Parts: []Part{BlobPart(blob)},
	})
}

// PushMessageWithFile appends a turn combining text and an uploaded file.
func (c *Context) PushMessageWithFile(role Role, text string, data FileData) {
	c.contents = append(c.contents, Content{
		Role:  role,
		Parts: []Part{TextPart(text), FilePart(data)},
	})
}

// PushMessageWithBlob appends a turn combining text and inline binary data.
func (c *Context) PushMessageWithBlob(role Role, text string, blob Blob) {
	c.contents = append(c.contents, Content{
		Role:  role,
		Parts: []Part{TextPart(text), BlobPart(blob)},
	})
}

// Push appends an arbitrary pre-built turn.
func (c *Context) Push(content Content) {
	c.contents = append(c.contents, content)
}

// Clear drops the whole history.
func (c *Context) Clear() {
	c.contents = c.contents[:0]
}

// Len returns the number of turns.
func (c *Context) Len() int {
	return len(c.contents)
}

// IsEmpty reports whether the history has no turn.
func (c *Context) IsEmpty() bool {
	return len(c.contents) == 0
}

// Contents returns a copy of the history.
func (c *Context) Contents() []Content {
	return append([]Content(nil), c.contents...)
}

// Build serializes the history plus settings into the wire request.
//
// When settings carries no safety settings, every harm category defaults to
// BLOCK_NONE; when it carries no generation config, maxOutputTokens defaults
// to 8192 and temperature to 1.0.
func (c *Context) Build(settings *Settings) GenerateContentRequest {
	if settings == nil {
		settings = NewSettings()
	}

	req := GenerateContentRequest{
		Contents: c.Contents(),
	}

	if safety := settings.SafetySettings(); len(safety) > 0 {
		req.SafetySettings = safety
	} else {
		for _, category := range HarmCategories() {
			req.SafetySettings = append(req.SafetySettings, SafetySetting{
				Category:  category,
				Threshold: BlockNone,
			})
		}
	}

	if cfg := settings.GenerationConfig(); cfg != nil {
		req.GenerationConfig = cfg
	} else {
		maxTokens := 8192
		temperature := 1.0
		req.GenerationConfig = &GenerationConfig{
			MaxOutputTokens: &maxTokens,
			Temperature:     &temperature,
		}
	}

	if instruction := settings.SystemInstruction(); instruction != "" {
		req.SystemInstruction = &InstructionContent{
			Parts: []Part{TextPart(instruction)},
		}
	}

	return req
}
