/*
Package cryptoutils signs and authenticates registry requests.

A caller proves its identity by signing the request path concatenated with
the raw body using its secp256k1 key. The digest is the EIP-191 personal
message hash, so wallets that implement personal_sign can produce valid
signatures. The hex-encoded 65-byte signature travels in the
X-Registry-Signature header, and the server recovers the caller address
from it. Signatures carry no nonce, so replaying a signed request repeats
the call.
*/
package cryptoutils
