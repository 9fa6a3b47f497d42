package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var feedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Fetch a composed feed page",
	Long: `Fetch a feed page from the API. With --token the feed is composed
for that viewer (engagement flags, followed authors); without it the
anonymous feed is returned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return fetchFeed()
	},
}

func init() {
	feedCmd.Flags().IntVar(&feedLimit, "limit", 50, "Number of organic items to request")
}

func fetchFeed() error {
	url := fmt.Sprintf("%s/api/v1/feed?limit=%d", apiURL, feedLimit)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.Unmarshal(body, &errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("API error: %s", msg)
		}
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var page struct {
		Items []struct {
			Type string `json:"type"`
			Post *struct {
				Body string `json:"body"`
				User struct {
					Username string `json:"username"`
				} `json:"user"`
				LikeCount   int64 `json:"like_count"`
				RepostCount int64 `json:"repost_count"`
			} `json:"post"`
			RepostedBy *struct {
				Username string `json:"username"`
			} `json:"reposted_by"`
			Promo *struct {
				Sponsor string `json:"sponsor"`
				Body    string `json:"body"`
			} `json:"promo"`
		} `json:"items"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	for i, item := range page.Items {
		switch item.Type {
		case "promo":
			fmt.Printf("%3d  [promo] %s: %s\n", i, item.Promo.Sponsor, item.Promo.Body)
		case "repost":
			fmt.Printf("%3d  @%s reposted @%s: %s (%d likes, %d reposts)\n",
				i, item.RepostedBy.Username, item.Post.User.Username,
				item.Post.Body, item.Post.LikeCount, item.Post.RepostCount)
		default:
			fmt.Printf("%3d  @%s: %s (%d likes, %d reposts)\n",
				i, item.Post.User.Username, item.Post.Body,
				item.Post.LikeCount, item.Post.RepostCount)
		}
	}
	fmt.Printf("%d items\n", page.Count)
	return nil
}
