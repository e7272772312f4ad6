// Package mailsend provides a provider-agnostic Go library and HTTP service
// for sending transactional email.
//
// The library mints and caches OAuth access tokens for providers that need
// them (Gmail via service-account JWT assertions or user refresh tokens),
// composes MIME messages with RFC 2047 subject encoding, and exposes a
// single Mailer interface over interchangeable delivery backends.
//
// # Basic Usage
//
//	config := mailsend.DefaultConfig()
//
//	client, err := mailsend.New(config,
//		mailsend.WithGmail("sender@project.iam.gserviceaccount.com", privateKeyPEM),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Send(context.Background(), &mailsend.Email{
//		To:      "user@example.com",
//		Subject: "Welcome",
//		Content: "<h1>Welcome!</h1>",
//		HTML:    true,
//	})
//
// # Supported Providers
//
//   - Gmail (service account with optional domain-wide delegation)
//   - Gmail (user OAuth refresh token)
//   - SendGrid
//   - Webhook forwarding
//   - AWS SES
//
// Access tokens are cached in-process by default; pass
// WithRedisTokenStore to share them across instances.
package mailsend
