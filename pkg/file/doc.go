// Package file stores small public blobs such as user avatars.
//
// Storage has two implementations: LocalStorage writes below a directory
// and is served by the HTTP server in development, S3Storage writes to an
// S3 or S3-compatible bucket through aws-sdk-go-v2. Content checks look at
// the bytes (http.DetectContentType), never at the client-supplied name or
// header.
package file
