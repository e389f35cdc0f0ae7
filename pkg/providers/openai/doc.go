// Package openai implements the OpenAI chat completions adapter.
//
// The adapter transforms agnostic requests to the chat completions wire
// format and normalizes responses, including the SSE stream: each
// `data: <json>` line becomes at most one StreamChunk, and the literal
// `data: [DONE]` sentinel becomes the terminal chunk.
//
// # Usage
//
//	client := openai.New(providers.Config{
//	    Name:    "openai",
//	    Type:    providers.TypeOpenAI,
//	    BaseURL: "https://api.openai.com",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	    Timeout: 60 * time.Second,
//	})
//	defer client.Close()
//
//	resp, err := client.Complete(ctx, &providers.CompletionRequest{
//	    Model:    "gpt-4o",
//	    Messages: []providers.Message{{Role: providers.RoleUser, Content: "Hello!"}},
//	})
package openai
