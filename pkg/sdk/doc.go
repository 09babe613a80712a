// Package keywordsense classifies search keywords with a large language model.
//
// Each keyword gets a topical cluster, a language flag, a brand flag and a
// search intent. Keywords are sent in batches; a failing batch is skipped and
// reported while the rest of the run continues.
//
//	client, _ := keywordsense.New(ctx,
//	    keywordsense.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini"),
//	    keywordsense.WithBatchSize(50),
//	)
//	defer client.Close()
//
//	res, err := client.Analyze(ctx, keywords, func(p keywordsense.Progress) {
//	    fmt.Printf("%d%%\n", p.Percent)
//	})
//	for _, k := range res.Keywords {
//	    fmt.Println(k.Original, k.Cluster, k.Intent)
//	}
//
// A Redis or Valkey cache avoids re-classifying keywords seen before:
//
//	keywordsense.WithRedisCache("localhost:6379", "", 7*24*time.Hour)
package keywordsense
