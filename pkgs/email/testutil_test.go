package email

// testMailRFC822 is a minimal RFC 5322 message for testing.
const testMailRFC822 = "MIME-Version: 1.0\r\n" +
	"From: \"Sender\" <sender@example.com>\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Test Subject\r\n" +
	"Date: Mon, 09 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-1@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello, World!"

// testMailMultipart is a multipart/mixed message with text + attachment.
const testMailMultipart = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Multipart Test\r\n" +
	"Date: Mon, 09 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-multi@example.com>\r\n" +
	"Content-Type: multipart/mixed; boundary=\"TESTBOUNDARY\"\r\n" +
	"\r\n" +
	"--TESTBOUNDARY\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"test.bin\"\r\n" +
	"\r\n" +
	"BINARYDATA\r\n" +
	"--TESTBOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain text body\r\n" +
	"--TESTBOUNDARY--\r\n"

// testMailNested is a multipart/mixed containing a multipart/alternative.
const testMailNested = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: =?utf-8?q?Nested_M=C3=BCltipart?=\r\n" +
	"Date: Mon, 09 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-nested@example.com>\r\n" +
	"Content-Type: multipart/mixed; boundary=\"OUTER\"\r\n" +
	"\r\n" +
	"--OUTER\r\n" +
	"Content-Type: multipart/alternative; boundary=\"INNER\"\r\n" +
	"\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>HTML version</p>\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain version\r\n" +
	"--INNER--\r\n" +
	"--OUTER--\r\n"
