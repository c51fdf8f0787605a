// Package gmail reads messages and attachments from a Gmail mailbox.
//
// Client implements the archive pipeline's mail source over the Gmail REST
// API. It only needs the gmail.readonly scope; the authorized HTTP client is
// built by the google package.
//
// Example usage:
//
//	httpClient, err := google.NewHTTPClient(ctx, oauthConfig, token)
//	if err != nil {
//	    return err
//	}
//	client, err := gmail.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//
//	ids, err := client.ListMessageIDs(ctx, `from:info@bcc.kz has:attachment`)
package gmail
