/*
Package pageserver is a single-threaded, non-blocking HTTP/1.1 static page server.

One goroutine owns a listening socket, an epoll (Linux) or kqueue (Darwin)
poller and a fixed pool of connection slots. Every request line is mapped to
a page file under the document root and streamed back without ever blocking
the loop, so slow clients only hold their own slot.

# Routing

Every route serves exactly one file:

	GET /about HTTP/1.1   ->   <root>/about/page.html

Only GET is served. Any URI containing ".." is refused with 400, other
methods get 405, missing pages 404 and server-side failures 500. Error
responses carry a small HTML body and close the connection. Successful
responses close the connection too, although the header says keep-alive.

# Quick Start

	package main

	import (
	    "log"
	    "os"

	    "github.com/searchktools/pageserver/app"
	    "github.com/searchktools/pageserver/config"
	)

	func main() {
	    cfg, err := config.Load(os.Args[1:])
	    if err != nil {
	        log.Fatal(err)
	    }

	    application, err := app.New(cfg)
	    if err != nil {
	        log.Fatal(err)
	    }
	    if err := application.Run(); err != nil {
	        log.Fatal(err)
	    }
	}

Configuration comes from PAGESERVER_* environment variables (optionally
loaded from a .env file) and command-line flags such as -port, -root and
-capacity.

# Modules

  - app: Application lifecycle and signal handling
  - config: Environment and flag configuration
  - core: Event loop, connection slots, response sending
  - core/http: Request-line parsing and response headers
  - core/router: URI to page file resolution
  - core/pools: Fixed-capacity slot pool
  - core/poller: I/O multiplexing (epoll/kqueue)
  - core/logging: Structured logging setup
  - core/observability: Per-status response metrics

# Capacity

The pool size is fixed at startup (24 slots by default). When every slot is
busy a new connection is accepted and closed immediately without a response.
Idle connections are kept until the peer closes them unless an idle timeout
is configured.
*/
package pageserver
