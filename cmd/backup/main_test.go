package main

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFileName(t *testing.T) {
	ts := time.Date(2026, 8, 29, 3, 15, 0, 0, time.UTC)
	assert.Equal(t, "backup-2026-08-29T03-15-00Z.sql.gz", backupFileName(ts))
}

func TestExpiredBackupsKeepsNewest(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var objects []types.Object
	for i := 0; i < 6; i++ {
		ts := base.AddDate(0, 0, i)
		objects = append(objects, types.Object{
			Key:          aws.String(backupFileName(ts)),
			LastModified: &ts,
		})
	}

	expired := expiredBackups(objects, 4)
	require.Len(t, expired, 2)
	assert.Equal(t, "backup-2026-08-02T00-00-00Z.sql.gz", *expired[0].Key)
	assert.Equal(t, "backup-2026-08-01T00-00-00Z.sql.gz", *expired[1].Key)
}

func TestExpiredBackupsBelowThreshold(t *testing.T) {
	ts := time.Now()
	objects := []types.Object{{Key: aws.String("backup-a"), LastModified: &ts}}
	assert.Nil(t, expiredBackups(objects, 4))
}
