package pkg

const (
	// Sentinel is the text message that ends an utterance.
	Sentinel = "END"

	// ErrorReplyPrefix marks a reply that carries a failure instead of a transcript.
	// A transcript that itself starts with it reads as a failure on the client.
	ErrorReplyPrefix = "ERROR: "

	// ChunkSize is how many bytes of audio the client puts in one binary frame.
	ChunkSize = 4096
)
