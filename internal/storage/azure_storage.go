package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type azureStorage struct {
	client      *azblob.Client
	accountName string
	maxBytes    int64
}

// NewAzureStorage fetches blobs from https://<account>.blob.core.windows.net/<container>/<blob>.
func NewAzureStorage(accountName, accountKey string, maxBytes int64) (MediaFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s/", AzureBlobHost(accountName)),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client, accountName: accountName, maxBytes: maxBytes}, nil
}

// AzureBlobHost is the blob endpoint host of a storage account.
func AzureBlobHost(accountName string) string {
	return accountName + ".blob.core.windows.net"
}

// ServesHost reports whether host is this account's blob endpoint.
func (s *azureStorage) ServesHost(host string) bool {
	return s.accountName != "" && strings.EqualFold(host, AzureBlobHost(s.accountName))
}

// ParseBlobURL splits an Azure blob URL into container and blob name.
func ParseBlobURL(blobURL string) (container, blob string, err error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("blob URL must name a container and a blob: %s", blobURL)
	}
	return parts[0], parts[1], nil
}

func (s *azureStorage) Fetch(ctx context.Context, blobURL string) (*Blob, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return nil, fmt.Errorf("invalid blob URL: %w", err)
	}
	if !s.ServesHost(u.Host) {
		return nil, fmt.Errorf("blob host %q does not belong to account %q", u.Host, s.accountName)
	}
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	blob := &Blob{Name: baseName(blobName), Data: data}
	if resp.ContentType != nil {
		blob.ContentType = *resp.ContentType
	}
	return blob, nil
}
