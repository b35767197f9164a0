// Package citeqa is an embeddable client for citation-grounded question answering
// over your own documents.
//
// Documents are decomposed into sections, figures and overlapping chunks. A
// question is answered by retrieving the relevant chunks, numbering them as
// sources [1]..[n], asking the configured provider for an answer that cites
// them, and scoring how well the answer is supported.
//
//	client, _ := citeqa.New(ctx,
//	    citeqa.WithBadger("./data"),
//	    citeqa.WithGemini(os.Getenv("GEMINI_API_KEY"), ""),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, "bio", "Intro: photosynthesis uses light")
//	ans, _ := client.Answer(ctx, "What does photosynthesis use?", "bio")
//	fmt.Println(ans.Text, ans.Confidence, ans.Sources)
//
// Without an API key the client still answers, with the fixed "not configured"
// message, low confidence and no sources.
package citeqa
