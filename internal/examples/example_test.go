package examples

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bookmarks/internal/hasher"
	"github.com/patric-chuzhbe/bookmarks/internal/ipchecker"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/router"
	"github.com/patric-chuzhbe/bookmarks/internal/service"
	"github.com/patric-chuzhbe/bookmarks/internal/token"
)

func newServer() *httptest.Server {
	db, err := memorystorage.New()
	if err != nil {
		panic(err)
	}

	tokens, err := token.New([]byte("example-secret"))
	if err != nil {
		panic(err)
	}

	ipChecker, err := ipchecker.New("")
	if err != nil {
		panic(err)
	}

	theAuth := auth.New(db, hasher.New(), tokens)

	return httptest.NewServer(router.New(theAuth, service.New(db), ipChecker).Handler())
}

func do(method, url, accessToken string, body interface{}, result interface{}) int {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			panic(err)
		}
	}

	req, err := http.NewRequest(method, url, &payload)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			panic(err)
		}
	}

	return resp.StatusCode
}

// Example walks through signup, bookmark creation and the owner-only view of bookmarks.
func Example() {
	server := newServer()
	defer server.Close()

	var alice, bob models.TokenResponse
	fmt.Println("signup alice:", do(http.MethodPost, server.URL+"/auth/signup", "", models.AuthRequest{Email: "alice@xyz.com", Password: "1234"}, &alice))
	fmt.Println("signup bob:", do(http.MethodPost, server.URL+"/auth/signup", "", models.AuthRequest{Email: "bob@xyz.com", Password: "1234"}, &bob))

	var created models.Bookmark
	fmt.Println("create:", do(http.MethodPost, server.URL+"/bookmarks", alice.AccessToken, models.CreateBookmarkRequest{Title: "Go", Link: "https://go.dev"}, &created))

	fmt.Println("owner reads:", do(http.MethodGet, server.URL+"/bookmarks/"+created.ID, alice.AccessToken, nil, nil))
	fmt.Println("stranger reads:", do(http.MethodGet, server.URL+"/bookmarks/"+created.ID, bob.AccessToken, nil, nil))
	fmt.Println("anonymous reads:", do(http.MethodGet, server.URL+"/bookmarks/"+created.ID, "", nil, nil))

	var bobsList models.Bookmarks
	do(http.MethodGet, server.URL+"/bookmarks", bob.AccessToken, nil, &bobsList)
	fmt.Println("bob's bookmarks:", len(bobsList))

	fmt.Println("owner deletes:", do(http.MethodDelete, server.URL+"/bookmarks/"+created.ID, alice.AccessToken, nil, nil))

	// Output:
	// signup alice: 201
	// signup bob: 201
	// create: 201
	// owner reads: 200
	// stranger reads: 404
	// anonymous reads: 401
	// bob's bookmarks: 0
	// owner deletes: 204
}
