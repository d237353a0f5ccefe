// Package http holds the request and response helpers module handlers use.
//
//	res := gohttp.NewResponse(w).For(r)
//
//	res.Success(data)             // 200 {"data": ...}
//	res.Created(data)             // 201 {"data": ...}
//	res.NoContent()               // 204
//	res.Error(409, "taken")       // {"message": "taken", "request_id": "..."}
//	res.NotFound()                // 404
//	res.Exception(err, debug)     // 500, error text only when debug
//	res.ValidationError(errs)     // 422 {"message": ..., "errors": {"field": ["msg"]}}
//
// Request wraps the input side: strict JSON binding, query and route params.
package http
