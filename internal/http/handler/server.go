package handler

import "github.com/gofiber/fiber/v2"

// DefaultReadBufferBytes is how much of a request body Fiber buffers before
// handing the remainder to the handler as a stream.
const DefaultReadBufferBytes = 1 << 20

// FiberConfig returns the Fiber settings the gateway depends on: streamed
// request bodies and the JSON error handler. Uploads larger than readBuffer are
// not rejected by Fiber; the upload handler enforces the document size ceiling.
func FiberConfig(readBuffer int) fiber.Config {
	if readBuffer <= 0 {
		readBuffer = DefaultReadBufferBytes
	}
	return fiber.Config{
		AppName:               "pdfgate",
		ErrorHandler:          ErrorHandler(),
		StreamRequestBody:     true,
		BodyLimit:             readBuffer,
		DisableStartupMessage: true,
	}
}
