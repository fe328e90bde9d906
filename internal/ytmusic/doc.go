// Package ytmusic searches YouTube Music through its internal web API.
//
// Requests are authenticated the way the browser does it: a SAPISIDHASH
// Authorization header derived from the __Secure-3PAPISID cookie, plus the
// visitor id and cookies handed out by the landing page.
//
//	sapisid, err := ytmusic.ParseCookie(pastedHeaders)
//	client := ytmusic.NewClient(http.NewClient(), sapisid)
//	if err := client.Bootstrap(ctx); err != nil {
//	    return err
//	}
//	candidates, err := client.Search(ctx, "Song Artist")
package ytmusic
