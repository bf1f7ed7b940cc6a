// Package ragchat embeds the ragchat retrieval-augmented chat pipeline in a Go
// program without running the HTTP server.
//
// Documents are extracted, chunked, embedded and stored in Redis, Valkey or an
// embedded bbolt file. Questions are answered by a chat model from the passages
// nearest to them.
//
//	client, _ := ragchat.New(ctx,
//	    ragchat.WithBolt("data/ragchat.db"),
//	    ragchat.WithOllama("http://localhost:11434", "nomic-embed-text", "llama3.1:8b"),
//	)
//	defer client.Close()
//
//	_, _ = client.IngestFile(ctx, "handbook.pdf", "")
//	ans, _ := client.Ask(ctx, ragchat.Question{Text: "How many vacation days do I get?"})
//	fmt.Println(ans.Text)
//
// Custom backends plug in through WithEmbedder and WithChatModel.
package ragchat
