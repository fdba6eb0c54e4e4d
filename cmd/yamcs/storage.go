package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yamcs/yamcs-client-go/api/storage"
	"github.com/yamcs/yamcs-client-go/utils"
)

const maxParallelCopies = 4

var errObjectFormat = errors.New("specify objects in the format bucket://object")

// objectURL addresses an object as bucket://object.
type objectURL struct {
	bucket string
	object string
}

func (u objectURL) String() string { return u.bucket + "://" + u.object }

func parseObjectURL(s string) (objectURL, bool) {
	bucket, object, ok := strings.Cut(s, "://")
	if !ok {
		return objectURL{}, false
	}
	return objectURL{bucket: bucket, object: object}, true
}

// storageCmd bundles what the storage subcommands share.
type storageCmd struct {
	*cli
	client   *storage.StorageClient
	instance string
}

func (c *cli) withStorage(run func(ctx context.Context, s *storageCmd, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		yc, instance, err := c.newInstanceClient(cmd.Context())
		if err != nil {
			return err
		}
		defer yc.Close(cmd.Context())
		return run(cmd.Context(), &storageCmd{cli: c, client: yc.GetStorage(), instance: instance}, args)
	}
}

func (c *cli) newStorageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Manage object storage",
	}

	var long, recurse bool
	ls := &cobra.Command{
		Use:     "ls [BUCKET[://PREFIX]]",
		Aliases: []string{"list"},
		Short:   "List buckets or objects",
		Args:    cobra.MaximumNArgs(1),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			if len(args) == 0 {
				return s.listBuckets(ctx)
			}
			return s.listObjects(ctx, args[0], long, recurse)
		}),
	}
	ls.Flags().BoolVarP(&long, "long", "l", false, "List in long format")
	ls.Flags().BoolVarP(&recurse, "recurse", "r", false, "List recursively")

	mb := &cobra.Command{
		Use:   "mb BUCKET...",
		Short: "Make buckets",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			for _, bucket := range args {
				if err := s.client.CreateBucket(ctx, s.instance, bucket); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	rb := &cobra.Command{
		Use:   "rb BUCKET...",
		Short: "Remove buckets",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			for _, bucket := range args {
				if err := s.client.RemoveBucket(ctx, s.instance, bucket); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cat := &cobra.Command{
		Use:   "cat OBJECT...",
		Short: "Concatenate object content to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			urls, err := parseObjectURLs(args)
			if err != nil {
				return err
			}
			for _, u := range urls {
				content, err := s.client.DownloadObject(ctx, s.instance, u.bucket, u.object)
				if err != nil {
					return err
				}
				if _, err := s.out.Write(content); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cp := &cobra.Command{
		Use:   "cp SRC... DST",
		Short: "Copy files or objects",
		Long: "Copy files or objects. Objects are given in the format bucket://object.\n" +
			"With several sources DST must be a directory or end with a slash.",
		Args: cobra.MinimumNArgs(2),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			return s.copyAll(ctx, args[:len(args)-1], args[len(args)-1])
		}),
	}

	mv := &cobra.Command{
		Use:   "mv SRC DST",
		Short: "Move files or objects",
		Args:  cobra.ExactArgs(2),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			if err := s.copy(ctx, args[0], args[1]); err != nil {
				return err
			}
			if u, ok := parseObjectURL(args[0]); ok {
				return s.client.RemoveObject(ctx, s.instance, u.bucket, u.object)
			}
			return os.Remove(args[0])
		}),
	}

	rm := &cobra.Command{
		Use:   "rm OBJECT...",
		Short: "Remove objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withStorage(func(ctx context.Context, s *storageCmd, args []string) error {
			urls, err := parseObjectURLs(args)
			if err != nil {
				return err
			}
			var buckets []string
			objects := make(map[string][]string)
			for _, u := range urls {
				if _, ok := objects[u.bucket]; !ok {
					buckets = append(buckets, u.bucket)
				}
				objects[u.bucket] = append(objects[u.bucket], u.object)
			}
			for _, bucket := range buckets {
				if err := s.client.RemoveObjects(ctx, s.instance, bucket, objects[bucket]); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cmd.AddCommand(ls, mb, rb, cat, cp, mv, rm)
	return cmd
}

func parseObjectURLs(args []string) ([]objectURL, error) {
	urls := make([]objectURL, 0, len(args))
	for _, arg := range args {
		u, ok := parseObjectURL(arg)
		if !ok {
			return nil, fmt.Errorf("%s: %w", arg, errObjectFormat)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (s *storageCmd) listBuckets(ctx context.Context) error {
	buckets, err := s.client.ListBuckets(ctx, s.instance)
	if err != nil {
		return err
	}
	for _, b := range buckets {
		fmt.Fprintln(s.out, b.Name)
	}
	return nil
}

func (s *storageCmd) listObjects(ctx context.Context, arg string, long, recurse bool) error {
	u, ok := parseObjectURL(arg)
	if !ok {
		u = objectURL{bucket: arg}
	}
	delimiter := "/"
	if recurse {
		delimiter = ""
	}
	listing, err := s.client.ListObjects(ctx, s.instance, u.bucket, u.object, delimiter)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, prefix := range listing.Prefixes {
		url := objectURL{bucket: u.bucket, object: prefix}.String()
		if long {
			rows = append(rows, []string{"0", "", url})
		} else {
			rows = append(rows, []string{url})
		}
	}
	for _, obj := range listing.Objects {
		url := objectURL{bucket: u.bucket, object: obj.Name}.String()
		if long {
			created := ""
			if t := obj.CreatedTime(); t != nil {
				created = utils.ToISOString(*t)
			}
			rows = append(rows, []string{fmt.Sprint(int64(obj.Size)), created, url})
		} else {
			rows = append(rows, []string{url})
		}
	}
	return printTable(s.out, rows)
}

// copyAll copies each source to dst, in parallel when there are several.
func (s *storageCmd) copyAll(ctx context.Context, sources []string, dst string) error {
	if len(sources) == 1 {
		return s.copy(ctx, sources[0], dst)
	}
	if u, ok := parseObjectURL(dst); ok {
		if u.object != "" && !strings.HasSuffix(u.object, "/") {
			return fmt.Errorf("%s: destination of several objects must end with a slash", dst)
		}
	} else if info, err := os.Stat(dst); err != nil || !info.IsDir() {
		return fmt.Errorf("%s: destination of several files must be a directory", dst)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCopies)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := s.copy(gctx, src, dst); err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *storageCmd) copy(ctx context.Context, src, dst string) error {
	srcURL, srcIsObject := parseObjectURL(src)
	dstURL, dstIsObject := parseObjectURL(dst)
	switch {
	case srcIsObject && dstIsObject:
		content, err := s.client.DownloadObject(ctx, s.instance, srcURL.bucket, srcURL.object)
		if err != nil {
			return err
		}
		return s.upload(ctx, bytes.NewReader(content), path.Base(srcURL.object), dstURL)
	case srcIsObject:
		return s.download(ctx, srcURL, dst)
	case dstIsObject:
		info, err := os.Stat(src)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", src)
		}
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer f.Close()
		return s.upload(ctx, f, filepath.Base(src), dstURL)
	default:
		return copyFile(src, dst)
	}
}

// upload stores r under dst. An empty object name or one ending with a slash
// is completed with name.
func (s *storageCmd) upload(ctx context.Context, r io.Reader, name string, dst objectURL) error {
	object := dst.object
	if object == "" || strings.HasSuffix(object, "/") {
		object += name
	}
	return s.client.UploadObject(ctx, s.instance, dst.bucket, object, r)
}

func (s *storageCmd) download(ctx context.Context, src objectURL, dst string) error {
	content, err := s.client.DownloadObject(ctx, s.instance, src.bucket, src.object)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, path.Base(src.object))
	}
	return os.WriteFile(dst, content, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
