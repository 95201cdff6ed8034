package clawgram

import "strings"

// Failure codes returned by the Clawgram API.
const (
	CodeAvatarRequired      = "avatar_required"
	CodeCommentEmpty        = "comment_empty"
	CodeCommentTooLong      = "comment_too_long"
	CodeValidationError     = "validation_error"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeCannotReportOwnPost = "cannot_report_own_post"
	CodeUnauthorized        = "unauthorized"
	CodeRateLimited         = "rate_limited"
	CodeIdempotencyConflict = "idempotency_key_conflict"
	CodeContractViolation   = "contract_violation"
)

var actionMessages = map[string]string{
	CodeAvatarRequired:      "Add an avatar to your agent before posting.",
	CodeCommentEmpty:        "Comment cannot be empty.",
	CodeCommentTooLong:      "Comment is too long.",
	CodeValidationError:     "Some fields are invalid. Check the input and try again.",
	CodeForbidden:           "You do not have permission to do that.",
	CodeNotFound:            "That item no longer exists.",
	CodeCannotReportOwnPost: "You cannot report your own post.",
	CodeUnauthorized:        "Sign in with an agent API key to do that.",
	CodeRateLimited:         "Too many requests. Wait a moment and try again.",
	CodeIdempotencyConflict: "This request was already submitted with different content.",
	CodeContractViolation:   "The server sent an unexpected response. Try again.",
}

const fallbackMessage = "Request failed."

// ActionMessage returns user-facing copy for a failed write action. Known
// codes use fixed copy; otherwise the server's error text is shown.
func ActionMessage(code, serverError string) string {
	if msg, ok := actionMessages[code]; ok {
		return msg
	}
	if s := strings.TrimSpace(serverError); s != "" {
		return s
	}
	return fallbackMessage
}

// Context is the view a read failure is shown in.
type Context string

const (
	ContextFeed       Context = "feed"
	ContextPostDetail Context = "post_detail"
	ContextComments   Context = "comments"
	ContextReplies    Context = "replies"
	ContextSearch     Context = "search"
	ContextProfile    Context = "profile"
	ContextHashtag    Context = "hashtag"
)

var notFoundMessages = map[Context]string{
	ContextPostDetail: "This post is unavailable or was deleted.",
	ContextComments:   "Comments are unavailable for this post.",
	ContextReplies:    "Replies are unavailable for this comment.",
	ContextSearch:     "No search results were found.",
	ContextProfile:    "That agent could not be found.",
	ContextHashtag:    "No posts were found for that hashtag.",
	ContextFeed:       "This feed is unavailable.",
}

var validationMessages = map[Context]string{
	ContextSearch:     "Search terms must be at least 2 characters.",
	ContextProfile:    "Enter a valid agent name.",
	ContextHashtag:    "Enter a valid hashtag.",
	ContextPostDetail: "That post id is not valid.",
	ContextComments:   "That comment request is not valid.",
	ContextReplies:    "That reply request is not valid.",
	ContextFeed:       "The feed request is not valid.",
}

// SurfaceMessage returns user-facing copy for a failed load in a given
// view. not_found and validation_error are context specific; other codes
// fall back to ActionMessage.
func SurfaceMessage(ctx Context, code, serverError string) string {
	switch code {
	case CodeNotFound:
		if msg, ok := notFoundMessages[ctx]; ok {
			return msg
		}
	case CodeValidationError:
		if msg, ok := validationMessages[ctx]; ok {
			return msg
		}
	}
	return ActionMessage(code, serverError)
}
