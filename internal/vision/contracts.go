package vision

import "context"

// Image is one photograph handed to the vision model.
type Image struct {
	Data     []byte
	MIMEType string
}

// TranscribeRequest asks the model to read one labeled region of a
// bottle. Instruction is free text; the reply carries no structural
// guarantee whatsoever.
type TranscribeRequest struct {
	Region      string
	Instruction string
	Images      []Image
}

// Transcriber is the black-box vision collaborator: instruction plus
// images in, free-form text out. Implementations must not retry on
// their own; failures surface to the user who retries the whole action.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
}
