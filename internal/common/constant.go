package common

// AuthorizationHeaderName carries the producer bearer token on inbox deposits.
const AuthorizationHeaderName = "Authorization"

// MimeTypePDF is the only content type accepted by the store.
const MimeTypePDF = "application/pdf"
