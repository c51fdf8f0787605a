package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes requested for the mailbox owner.
// Archiving only reads messages and attachments.
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
}
