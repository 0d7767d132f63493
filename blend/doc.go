// Package blend loads stored files: a 12-byte file header followed by a
// stream of blocks, one of which (DNA1) holds the layout table of the build
// that wrote the file.
//
// Open walks the block headers, decodes the stored layout table, and converts
// every struct block into the current build's layout with the reconcile
// package. Pointers inside converted data are still old addresses. Once all
// blocks are loaded, the session's old-address table maps them to blocks, and
// a caller-supplied Relinker rewrites them:
//
//	sess, err := blend.Open(data, current, blend.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	err = sess.Relink(ctx, blend.RelinkFunc(func(ctx context.Context, b *blend.Block, t *blend.AddressTable) error {
//	    ...
//	}))
//
// A Session is used by one goroutine. Sessions share the current layout
// table, so any number of files can be loaded in parallel.
package blend
