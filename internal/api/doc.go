// Package api handles incoming HTTP requests, request validation and
// response formatting. Handlers translate HTTP into calls on the review
// scheduler, the trigger engine and the card catalog, and map their errors
// to safe status codes and messages.
package api
