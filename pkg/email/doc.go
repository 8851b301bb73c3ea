// Package email sends transactional mail: payment receipts to Gram Panchayat
// contacts and operational alerts to the portal operator.
//
// Sender is implemented by a Postmark client for production and by DevSender,
// which writes messages to disk during local development. New picks one from
// Config:
//
//	sender, err := email.New(cfg)
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "secretary@rampur.example",
//		Subject:  "Payment received",
//		BodyHTML: body,
//		Tag:      "payment-receipt",
//	})
//
// Every implementation validates parameters before sending.
package email
