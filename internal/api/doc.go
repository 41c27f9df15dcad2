// Package api exposes the study service over HTTP. It translates requests
// into scheduler operations for the authenticated learner and maps results
// and errors back into JSON responses that never leak internal details.
package api
