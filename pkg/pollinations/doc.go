// Package pollinations is a client for the Pollinations text endpoint
// (https://text.pollinations.ai).
//
// [Client.Send] issues one completion request and fails with a
// [*RequestError] on any problem, including a reply without content.
// [Client.SendWithRetry] is the lightweight variant: it retries failed
// attempts on a [RetryPolicy] schedule and reports "no answer" with a false
// second result instead of an error. Both read their request parameters from
// a [config.Config].
//
// [Client.ListModels] fetches the model catalogue fresh on every call.
package pollinations
