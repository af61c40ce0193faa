package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// VerifyPaymentSignature checks the per-transaction callback signature. The
// signed message is "<gateway order id>|<gateway payment id>" keyed with the
// key secret, never the webhook secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	message := fmt.Sprintf("%s|%s", orderID, paymentID)
	return verifyHMAC([]byte(message), signature, c.keySecret)
}

// VerifyWebhookSignature checks the signature over the exact raw webhook body
// as received, keyed with the webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(body, signature, c.webhookSecret)
}

func verifyHMAC(message []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
