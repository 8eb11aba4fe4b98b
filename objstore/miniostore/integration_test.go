//go:build integration

package miniostore_test

import (
	"testing"

	"github.com/yarokim83/filemanager/internal/testutil"
	"github.com/yarokim83/filemanager/objstore/miniostore"
)

func TestIntegrationConformance(t *testing.T) {
	bucket := testutil.BucketName("miniostore")
	client := testutil.StartMinio(t, bucket)

	testutil.RunStoreSuite(t, miniostore.NewWithClient(client, bucket))
}
