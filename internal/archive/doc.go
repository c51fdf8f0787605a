// Package archive implements the attachment sync pipeline.
//
// A run locates candidate messages, extracts the attachments whose storage
// key is not yet in the bucket, writes each one with a create-if-absent
// condition and returns a signed download URL for every object it created.
//
//	LOCATING -> EXTRACTING -> ARCHIVING -> DONE
//
// Storage keys are derived from the message date, the message id and the
// attachment filename, so a key identifies an attachment across runs:
//
//	{YYYY-MM-DD|unknown-date}_{messageID}_{sanitized filename}
//
// The pipeline talks to the outside world only through MailSource and
// BlobStore.
package archive
