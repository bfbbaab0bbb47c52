package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	keyPrefix = "cache:"
	genPrefix = "cache:gen:"
	separator = "|"

	// AccountsPath is the resource path all cached account views live under.
	AccountsPath = "/accounts"
)

// Key fingerprints a read query by its canonical request URI and the identity of the requester.
func Key(requestURI, identity string) string {
	return keyPrefix + requestURI + separator + identity
}

// AccountGeneration is the counter bumped before the account's views are evicted.
func AccountGeneration(accountID int32) string {
	return fmt.Sprintf("%s%s/%d", genPrefix, AccountsPath, accountID)
}

// OwnerGeneration is the counter bumped before the owner's account listings are evicted.
func OwnerGeneration(owner string) string {
	return genPrefix + AccountsPath + separator + owner
}

// AccountPatterns returns glob patterns matching every key derived from the account's
// resource path: its detail view and everything below it, for any requester.
func AccountPatterns(accountID int32) []string {
	path := escapeGlob(fmt.Sprintf("%s/%d", AccountsPath, accountID))

	return []string{
		keyPrefix + path + separator + "*",
		keyPrefix + path + `\?*`,
		keyPrefix + path + "/*",
	}
}

// OwnerPatterns returns glob patterns matching the owner's account listing views.
func OwnerPatterns(owner string) []string {
	path := escapeGlob(AccountsPath)
	identity := escapeGlob(owner)

	return []string{
		keyPrefix + path + separator + identity,
		keyPrefix + path + `\?*` + separator + identity,
	}
}

// canonicalPath rebuilds the matched route with every parameter in the form the handlers
// parse it to, so /accounts/012, /accounts/+12 and /accounts/12 are the same resource.
// Route parameters are numeric ids; ok is false when one does not parse.
// accountID is set when the route lives under /accounts/:id.
func canonicalPath(ctx *gin.Context) (path string, accountID int32, ok bool) {
	route := ctx.FullPath()
	if route == "" {
		return "", 0, false
	}

	segments := strings.Split(route, "/")

	for i, segment := range segments {
		name, isParam := strings.CutPrefix(segment, ":")
		if !isParam {
			continue
		}

		id, err := strconv.ParseInt(ctx.Param(name), 10, 32)
		if err != nil {
			return "", 0, false
		}

		segments[i] = strconv.FormatInt(id, 10)

		if i == 2 && segments[1] == strings.TrimPrefix(AccountsPath, "/") {
			accountID = int32(id)
		}
	}

	return strings.Join(segments, "/"), accountID, true
}

// requestKeys returns the cache key of the request and the generation counter guarding it.
// The query is re-encoded with sorted keys.
func requestKeys(ctx *gin.Context, identity string) (key, gen string, ok bool) {
	path, accountID, ok := canonicalPath(ctx)
	if !ok {
		return "", "", false
	}

	uri := path
	if query := ctx.Request.URL.Query().Encode(); query != "" {
		uri += "?" + query
	}

	gen = OwnerGeneration(identity)
	if accountID != 0 {
		gen = AccountGeneration(accountID)
	}

	return Key(uri, identity), gen, true
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
