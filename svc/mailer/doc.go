// Package mailer delivers authentication emails asynchronously.
//
// Dispatcher implements auth.Mailer by turning each auth.MailMessage into a
// typed task on the "mail" queue. The plaintext token inside the task payload
// is encrypted with the service cipher, so the queue table never holds a
// usable token. Handlers returns the queue handlers that decrypt the token,
// render the templ body and hand it to an email.EmailSender.
package mailer
