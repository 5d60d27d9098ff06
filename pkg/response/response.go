package response

// Response is the standard API envelope: {success, message, data}. Errors
// carry Success=false plus the human-readable message; no internal error
// detail leaks past the boundary.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// SuccessMessage wraps data with an accompanying message.
func SuccessMessage(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

// List wraps a collection with its element count.
func List(data interface{}, count int) Response {
	return Response{Success: true, Data: data, Count: &count}
}

// Error builds a failure envelope with the given message.
func Error(message string) Response {
	return Response{Success: false, Message: message}
}
