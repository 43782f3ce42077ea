package common

// AnonymousUser is the identity assigned to requests that carry no user
// header. It must be granted permissions explicitly in the access file;
// the "all" keyword never expands to it.
const AnonymousUser = "anonymous"
